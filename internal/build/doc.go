// Package build runs the static generation pass: it resolves the home route
// and every generation target, writes one index.html per route plus 404.html
// and routes.json, and audits the output for broken internal links.
//
// The server and the build share route assembly (internal/site) and the
// layout (internal/templates), so a generated page is byte-for-byte what the
// server would have rendered at the same moment.
package build
