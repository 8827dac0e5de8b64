// Package kb provides read-only access to the EWS-to-Graph migration roadmap.
//
// The roadmap is loaded once at startup and indexed by the three alternate
// keys a caller may hold for an operation: the EWS SOAP protocol operation,
// the managed SDK method name, and the fully qualified managed API name.
// Nothing mutates the accessor after construction, so it is shared across
// file workers without synchronization.
package kb

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"graphshift/internal/types"
)

//go:embed roadmap.yaml
var embeddedRoadmap []byte

// KeyKind selects which index a Lookup consults.
type KeyKind int

const (
	KeyProtocolOperation KeyKind = iota // EWS SOAP operation, e.g. "FindItem"
	KeySDKMethod                        // managed API method, e.g. "FindItems"
	KeyQualifiedName                    // e.g. "Microsoft.Exchange.WebServices.Data.ExchangeService.FindItems"
)

func (k KeyKind) String() string {
	switch k {
	case KeyProtocolOperation:
		return "protocol-operation"
	case KeySDKMethod:
		return "sdk-method"
	case KeyQualifiedName:
		return "qualified-name"
	default:
		return "unknown"
	}
}

// Accessor is the immutable, multiply-indexed roadmap lookup.
type Accessor struct {
	entries     []*types.RoadmapEntry
	byProtocol  map[string]*types.RoadmapEntry
	bySDKMethod map[string]*types.RoadmapEntry
	byQualified map[string]*types.RoadmapEntry
}

type roadmapFile struct {
	Entries []*types.RoadmapEntry `yaml:"entries"`
}

// Load builds an accessor from the embedded roadmap, or from the YAML file at
// path when one is given.
func Load(path string) (*Accessor, error) {
	data := embeddedRoadmap
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read roadmap %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Parse builds an accessor from raw roadmap YAML.
func Parse(data []byte) (*Accessor, error) {
	var f roadmapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse roadmap: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("roadmap contains no entries")
	}

	a := &Accessor{
		entries:     f.Entries,
		byProtocol:  make(map[string]*types.RoadmapEntry, len(f.Entries)),
		bySDKMethod: make(map[string]*types.RoadmapEntry, len(f.Entries)),
		byQualified: make(map[string]*types.RoadmapEntry, len(f.Entries)),
	}
	for i, e := range f.Entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("roadmap entry %d (%s): %w", i, e.DisplayName, err)
		}
		if e.ProtocolOperation != "" {
			a.byProtocol[fold(e.ProtocolOperation)] = e
		}
		if e.SDKMethod != "" {
			a.bySDKMethod[fold(e.SDKMethod)] = e
		}
		if e.QualifiedName != "" {
			a.byQualified[fold(e.QualifiedName)] = e
		}
	}
	return a, nil
}

// Lookup returns the entry for key under the given kind, or ok=false when the
// roadmap has no mapping. Lookups are case-insensitive.
func (a *Accessor) Lookup(key string, kind KeyKind) (*types.RoadmapEntry, bool) {
	var e *types.RoadmapEntry
	switch kind {
	case KeyProtocolOperation:
		e = a.byProtocol[fold(key)]
	case KeySDKMethod:
		e = a.bySDKMethod[fold(key)]
	case KeyQualifiedName:
		e = a.byQualified[fold(key)]
	}
	return e, e != nil
}

// Resolve tries the qualified-name index first and falls back to the SDK
// method index, which is how located usage sites are keyed in practice.
func (a *Accessor) Resolve(site *types.UsageSite) (*types.RoadmapEntry, bool) {
	if e, ok := a.Lookup(site.QualifiedName, KeyQualifiedName); ok {
		return e, true
	}
	return a.Lookup(site.Method, KeySDKMethod)
}

// SDKMethods returns the managed API method names the roadmap covers, mapped
// to their fully qualified names. The analyzer uses this to recognize
// candidate invocations.
func (a *Accessor) SDKMethods() map[string]string {
	out := make(map[string]string, len(a.bySDKMethod))
	for _, e := range a.entries {
		if e.SDKMethod != "" {
			out[e.SDKMethod] = e.QualifiedName
		}
	}
	return out
}

// Entries returns all roadmap entries in file order.
func (a *Accessor) Entries() []*types.RoadmapEntry {
	return a.entries
}

// Len returns the number of roadmap entries.
func (a *Accessor) Len() int {
	return len(a.entries)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
