package sqlite

import "github.com/coderef/memoir/internal/domain"

func memoryCreate(content string, memType domain.MemoryType, tags []string) domain.MemoryCreate {
	return domain.MemoryCreate{Content: content, Type: memType, Tags: tags}
}

func updateFor(content string) domain.MemoryUpdate {
	return domain.MemoryUpdate{Content: &content}
}

func emptyUpdate() domain.MemoryUpdate {
	return domain.MemoryUpdate{}
}
