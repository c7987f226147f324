// Package roster compiles CUE roster files into the set of provisioned
// parties the outer service knows about.
//
// Party provisioning itself is external to the core; the roster is how
// the CLI resolves a --as identity and validates the parties named in a
// proposal before submitting it. A roster file looks like:
//
//	roster: {
//		parties: [
//			{id: "alice", name: "Alice"},
//			{id: "bob", name: "Bob"},
//		]
//	}
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
package roster

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/Quantumplation/daml-trace/internal/record"
)

// PartyInfo describes one provisioned party.
type PartyInfo struct {
	ID   record.Party `json:"id"`
	Name string       `json:"name"`
}

// Roster is the compiled set of provisioned parties.
type Roster struct {
	Parties []PartyInfo `json:"parties"`

	index map[record.Party]PartyInfo
}

// Contains reports whether the roster provisions p.
func (r *Roster) Contains(p record.Party) bool {
	_, ok := r.index[p]
	return ok
}

// Get returns the info for p, if provisioned.
func (r *Roster) Get(p record.Party) (PartyInfo, bool) {
	info, ok := r.index[p]
	return info, ok
}

// CompileError reports a roster compilation failure with its source
// position when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile parses a CUE value into a Roster.
//
// The CUE value should be the roster struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`roster: { parties: [...] }`)
//	r, err := roster.Compile(v.LookupPath(cue.ParsePath("roster")))
func Compile(v cue.Value) (*Roster, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	partiesVal := v.LookupPath(cue.ParsePath("parties"))
	if !partiesVal.Exists() {
		return nil, &CompileError{
			Field:   "parties",
			Message: "parties list is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := partiesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	r := &Roster{index: make(map[record.Party]PartyInfo)}
	for iter.Next() {
		info, err := compileParty(iter.Value())
		if err != nil {
			return nil, err
		}
		if r.Contains(info.ID) {
			return nil, &CompileError{
				Field:   "parties",
				Message: fmt.Sprintf("duplicate party id %q", info.ID),
				Pos:     iter.Value().Pos(),
			}
		}
		r.Parties = append(r.Parties, info)
		r.index[info.ID] = info
	}

	if len(r.Parties) == 0 {
		return nil, &CompileError{
			Field:   "parties",
			Message: "at least one party is required",
			Pos:     v.Pos(),
		}
	}
	return r, nil
}

// compileParty parses one party entry.
func compileParty(v cue.Value) (PartyInfo, error) {
	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return PartyInfo{}, &CompileError{
			Field:   "id",
			Message: "id is required",
			Pos:     v.Pos(),
		}
	}
	id, err := idVal.String()
	if err != nil {
		return PartyInfo{}, formatCUEError(err)
	}
	if id == "" {
		return PartyInfo{}, &CompileError{
			Field:   "id",
			Message: "id must be nonempty",
			Pos:     idVal.Pos(),
		}
	}

	info := PartyInfo{ID: record.Party(id)}

	// Display name is optional; defaults to the id.
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return PartyInfo{}, formatCUEError(err)
		}
		info.Name = name
	} else {
		info.Name = id
	}
	return info, nil
}

// LoadDir loads and compiles every .cue file in a directory into one
// Roster. Multiple files unify into a single CUE instance; duplicate
// party ids across files are an error.
func LoadDir(dir string) (*Roster, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("roster directory not found: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing roster directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("error scanning roster directory: %w", err)
	}
	if len(cueFiles) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	rosterVal := value.LookupPath(cue.ParsePath("roster"))
	if !rosterVal.Exists() {
		return nil, fmt.Errorf("no roster declaration found in %s", dir)
	}
	return Compile(rosterVal)
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
