package validate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// probeProject is the minimal project carrying the Graph reference surface.
// Restores are cached by the dotnet toolchain, so repeated checks only pay
// for compilation.
const probeProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <Nullable>enable</Nullable>
    <LangVersion>latest</LangVersion>
    <OutputType>Library</OutputType>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Microsoft.Graph" Version="5.56.0" />
    <PackageReference Include="Azure.Identity" Version="1.12.0" />
  </ItemGroup>
</Project>
`

// DotnetCompiler compiles converted snippets in a scratch project with
// `dotnet build`, collecting CS error diagnostics.
type DotnetCompiler struct {
	// DotnetPath overrides the dotnet executable (default: resolved on PATH).
	DotnetPath string
}

// NewDotnetCompiler returns an exec-based compile checker.
func NewDotnetCompiler() *DotnetCompiler {
	return &DotnetCompiler{}
}

// Available reports whether the dotnet toolchain is on PATH.
func (c *DotnetCompiler) Available() bool {
	_, err := exec.LookPath(c.executable())
	return err == nil
}

// Check writes a probe source file around the snippet and builds it. Lines
// matching "error CSxxxx" come back as validation errors; warnings do not.
func (c *DotnetCompiler) Check(ctx context.Context, code string, imports []string) ([]string, error) {
	dir, err := os.MkdirTemp("", "graphshift-probe-")
	if err != nil {
		return nil, fmt.Errorf("failed to create probe dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "Probe.csproj"), []byte(probeProject), 0644); err != nil {
		return nil, fmt.Errorf("failed to write probe project: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Probe.cs"), []byte(probeSource(code, imports)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write probe source: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.executable(), "build", "--nologo", "-v", "quiet")
	cmd.Dir = dir
	output, runErr := cmd.CombinedOutput()

	errs := compilerErrors(string(output))
	if runErr != nil && len(errs) == 0 {
		// Build failed without diagnostics: restore failure, missing SDK and
		// the like. That is an infrastructure problem, not a snippet problem.
		return nil, fmt.Errorf("dotnet build failed: %w: %s", runErr, truncate(string(output), 400))
	}
	return errs, nil
}

func (c *DotnetCompiler) executable() string {
	if c.DotnetPath != "" {
		return c.DotnetPath
	}
	return "dotnet"
}

// probeSource wraps the snippet in an async method so statement-level
// conversions compile standalone.
func probeSource(code string, imports []string) string {
	var b strings.Builder
	seen := map[string]bool{}
	for _, imp := range imports {
		imp = strings.TrimSpace(imp)
		if imp == "" || seen[imp] {
			continue
		}
		seen[imp] = true
		b.WriteString(imp)
		b.WriteString("\n")
	}
	b.WriteString("\nnamespace GraphShift.Probe;\n\n")
	b.WriteString("public class ConversionProbe\n{\n")
	b.WriteString("    // Referenced identifiers available to every probe.\n")
	b.WriteString("    string tenantId = \"\", clientId = \"\", clientSecret = \"\";\n\n")
	b.WriteString("    public async System.Threading.Tasks.Task RunAsync(Microsoft.Graph.GraphServiceClient graphClient)\n    {\n")
	b.WriteString(indent(code, "        "))
	b.WriteString("\n        await System.Threading.Tasks.Task.CompletedTask;\n")
	b.WriteString("    }\n}\n")
	return b.String()
}

// compilerErrors extracts distinct "error CSxxxx" diagnostics from build
// output.
func compilerErrors(output string) []string {
	var errs []string
	seen := map[string]bool{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "error CS") {
			continue
		}
		// Strip the probe file path prefix; the snippet line numbers are
		// what matter to the caller.
		if idx := strings.Index(line, ": error CS"); idx >= 0 {
			line = line[idx+2:]
		}
		if !seen[line] {
			seen[line] = true
			errs = append(errs, line)
		}
	}
	return errs
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
