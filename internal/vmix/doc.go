// Package vmix implements the HTTP transport client for the vMix web API.
//
// vMix exposes a single endpoint at http://{host}:{port}/api. A GET with no
// parameters returns the full mixer state as an XML document; a GET with
// Function=... query parameters executes a command. The package maps the
// command kinds the controller needs (preview, transition, overlay, fade to
// black) onto their vMix function names and classifies failures as either
// transient network errors or rejections by the vMix host.
package vmix
