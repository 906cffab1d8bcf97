package repo_test

import (
	"testing"

	"github.com/hamed0406/uptimewatch/internal/repo"
	"github.com/hamed0406/uptimewatch/internal/repo/file"
	"github.com/hamed0406/uptimewatch/internal/repo/memory"
	pg "github.com/hamed0406/uptimewatch/internal/repo/postgres"
	rds "github.com/hamed0406/uptimewatch/internal/repo/redis"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.Store = memory.New()
	var _ repo.Store = (*file.Store)(nil)
	var _ repo.Store = (*pg.Store)(nil)
	var _ repo.Store = (*rds.Store)(nil)
}
