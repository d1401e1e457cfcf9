package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datawire/scmversion/pkg/scmengine"
	"github.com/datawire/scmversion/pkg/scmversion"
	"github.com/datawire/scmversion/pkg/scmversion/diag"
	"github.com/datawire/scmversion/pkg/scmversion/envoverride"
	"github.com/datawire/scmversion/pkg/scmversion/pyproject"
)

func init() {
	var (
		root          string
		versionScheme string
		localScheme   string
		tagRegex      string
		distName      string
		stripDev      bool
	)

	cmd := &cobra.Command{
		Use:   "version [flags]",
		Short: "Print the inferred PEP 440 version for a repository",
		Args:  cobra.NoArgs,
		RunE: func(flags *cobra.Command, args []string) error {
			pyprojectPath := "pyproject.toml"
			if root != "" {
				pyprojectPath = filepath.Join(root, "pyproject.toml")
			}
			payload, err := pyproject.Read(pyprojectPath, pyproject.DefaultToolName)
			if err != nil {
				return err
			}
			pyprojectLayer := payload.RawConfig()
			if pyprojectLayer.DistName == nil && payload.ProjectName != "" {
				name := payload.ProjectName
				pyprojectLayer.DistName = &name
			}

			cliLayer := scmversion.RawConfig{}
			if root != "" {
				cliLayer.Root = &root
			}
			if versionScheme != "" {
				cliLayer.VersionScheme = []string{versionScheme}
			}
			if localScheme != "" {
				cliLayer.LocalScheme = &localScheme
			}
			if tagRegex != "" {
				cliLayer.TagRegex = &tagRegex
			}
			if distName != "" {
				cliLayer.DistName = &distName
			}

			cfg, err := scmversion.Resolve(pyprojectLayer, cliLayer)
			if err != nil {
				return err
			}

			warn := diag.NewSink(flags.Context())
			envReader := envoverride.Reader{Prefix: scmversion.PrefixFrom(flags.Context()), DistName: cfg.DistName, Warn: warn}

			// SETUPTOOLS_SCM_OVERRIDES_FOR_<DIST> takes precedence
			// over everything configured so far (spec.md §4.8 step
			// 4), so it is resolved last, on top of the pyproject
			// and call-site layers already overlaid into cfg.
			if overrides, ok, err := envReader.Overrides(); err != nil {
				return err
			} else if ok {
				cfg, err = scmversion.Resolve(pyprojectLayer, cliLayer, scmversion.RawConfig{Overrides: overrides})
				if err != nil {
					return err
				}
			}

			result, err := scmengine.Infer(flags.Context(), cfg, envReader, scmengine.Backends(warn))
			if err != nil {
				return err
			}

			rendered := result.Rendered
			if stripDev {
				rendered = stripDevSuffix(rendered)
			}

			fmt.Fprintln(flags.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Root directory to infer a version for (default: current directory)")
	cmd.Flags().StringVar(&versionScheme, "version-scheme", "", "Main version scheme to use")
	cmd.Flags().StringVar(&localScheme, "local-scheme", "", "Local version scheme to use")
	cmd.Flags().StringVar(&tagRegex, "tag-regex", "", "Regular expression used to extract a version from a tag")
	cmd.Flags().StringVar(&distName, "dist-name", "", "Distribution name, for per-dist environment overrides")
	cmd.Flags().BoolVar(&stripDev, "strip-dev", false, "Strip a trailing .devN component from the rendered version")

	argparser.AddCommand(cmd)
}

var devSuffixRe = regexp.MustCompile(`\.dev\d+$`)

// stripDevSuffix removes a trailing ".devN" component, leaving any
// "+local" segment that followed it intact.
func stripDevSuffix(version string) string {
	if idx := strings.IndexByte(version, '+'); idx >= 0 {
		return devSuffixRe.ReplaceAllString(version[:idx], "") + version[idx:]
	}
	return devSuffixRe.ReplaceAllString(version, "")
}
