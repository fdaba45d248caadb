package assets

import _ "embed"

// Persona is the default agent persona and policy document.
//
//go:embed persona.yaml
var Persona []byte
