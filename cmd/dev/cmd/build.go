package cmd

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

// boards maps sensor host boards to their GOOS/GOARCH.
var boards = map[string][2]string{
	"raspi":  {"linux", "arm"},
	"raspi4": {"linux", "arm64"},
	"nanopi": {"linux", "arm"},
}

func boardNames() string {
	names := make([]string, 0, len(boards))
	for name := range boards {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the envsenso cli",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			goos, _ := flags.GetString("os")
			arch, _ := flags.GetString("arch")
			version, _ := flags.GetString("version")
			crossOs, _ := flags.GetString("cross-os")
			crossArch, _ := flags.GetString("cross-arch")
			if board, _ := flags.GetString("board"); board != "" {
				target, ok := boards[board]
				if !ok {
					return fmt.Errorf("unknown board %q (known: %s)", board, boardNames())
				}
				crossOs, crossArch = target[0], target[1]
			}

			// native toolchain, optionally cross-compiling
			if goos == runtime.GOOS && arch == runtime.GOARCH {
				if crossOs != "" && crossArch != "" {
					goos, arch = crossOs, crossArch
				}
				return build.GoBuild(fmt.Sprintf("dist/envsenso-%s-%s", goos, arch), "./cmd/envsenso", build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: "main",
					// hid needs cgo
					EnableCgo: true,
					Arch:      arch,
					OS:        goos,
				})
			}

			noCache, err := flags.GetBool("no-cache")
			if err != nil {
				return fmt.Errorf("could not get no-cache flag: %w", err)
			}
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", goos, arch),
				[]string{"build", "--version", version, "--cross-os", crossOs, "--cross-arch", crossArch},
				build.DockerBuildOpts{
					NoCache: noCache,
					Image:   "gophertribe/gobuild:1.25-bookworm",
				})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use cache when building the app")
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("os", runtime.GOOS, "os to build for")
	cmd.Flags().String("arch", runtime.GOARCH, "arch to build for")
	cmd.Flags().String("cross-os", "", "os to cross-compile for")
	cmd.Flags().String("cross-arch", "", "arch to cross-compile for")
	cmd.Flags().String("board", "", "target board shortcut ("+boardNames()+")")

	return cmd
}
