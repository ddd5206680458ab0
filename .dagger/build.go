package main

import (
	"fmt"
	"strings"
	"time"

	"context"

	"dagger/inkling/internal/dagger"
)

// Build and return directory of go binaries
func (i *Inkling) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// sqlite and libsql are cgo, so release builds stay on linux where the
	// cross toolchains are a package install away
	goarches := []string{"amd64", "arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	golang := i.goContainer().
		WithExec([]string{"apt-get", "install", "-y", "gcc-aarch64-linux-gnu"})

	for _, goarch := range goarches {
		// create directory for each architecture
		path := fmt.Sprintf("linux/%s/", goarch)

		build := golang.
			WithEnvVariable("GOOS", "linux").
			WithEnvVariable("GOARCH", goarch)

		if goarch == "arm64" {
			build = build.WithEnvVariable("CC", "aarch64-linux-gnu-gcc")
		}

		// build artifact
		build = build.
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/inkling"}).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/inklingd"})

		// add build to outputs
		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	// return build directory
	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (i *Inkling) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/inklingco/inkling/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/inklingco/inkling/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/inklingco/inkling/pkg/utils.Buildtime=%s'", buildtime),
	}

	return i.Build(ctx, strings.Join(ldflags, " "))
}
