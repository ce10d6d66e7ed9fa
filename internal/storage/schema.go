package storage

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/matthewbaird/fadem/internal/ledger"
)

//go:embed envelope.cue
var envelopeSchema string

var (
	schemaOnce sync.Once
	schemaMu   sync.Mutex
	cueCtx     *cue.Context
	envelope   cue.Value
	schemaErr  error
)

func loadSchema() {
	cueCtx = cuecontext.New()
	v := cueCtx.CompileString(envelopeSchema, cue.Filename("envelope.cue"))
	if err := v.Err(); err != nil {
		schemaErr = fmt.Errorf("compiling envelope schema: %w", err)
		return
	}
	envelope = v.LookupPath(cue.ParsePath("#Envelope"))
	schemaErr = envelope.Err()
}

// ValidateEnvelope checks raw export JSON against the envelope schema.
// Failures are reported as *ledger.ValidationError.
func ValidateEnvelope(raw []byte) error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}
	schemaMu.Lock()
	defer schemaMu.Unlock()
	expr, err := cuejson.Extract("import.json", raw)
	if err != nil {
		return &ledger.ValidationError{Field: "file", Reason: "not valid JSON: " + err.Error()}
	}
	v := envelope.Unify(cueCtx.BuildExpr(expr))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ledger.ValidationError{Field: "file", Reason: errors.Details(err, nil)}
	}
	return nil
}
