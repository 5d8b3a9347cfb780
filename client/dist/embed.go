package clientdist

import _ "embed"

// BartrJS is the browser client of the live UI server.
//
// It is served at "/_bartr/client.js".
//
//go:embed bartr.js
var BartrJS []byte
