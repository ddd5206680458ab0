package main

import (
	"context"
	"fmt"

	"dagger/inkling/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts returns the common GolangcilintOpts used by both CheckLint and FixLint.
// It layers golangci-lint on top of goContainer() so the sqlite dev headers,
// CGO, and Go caches are already in place.
func (i *Inkling) lintOpts() dagger.GolangcilintOpts {
	base := i.goContainer().
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  i.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint against the inkling source code without applying fixes.
func (i *Inkling) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(i.Source, i.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint against the inkling source code with --fix, applying
// automatic fixes where possible, and returns the modified source directory.
func (i *Inkling) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(i.Source, i.lintOpts()).Lint()
}
