// Package handlers contains the HTTP handlers of the PageBuilder server:
//   - the catch-all page route
//   - draft mode (preview) entry and exit
//   - on-demand revalidation
//   - health and readiness probes
//
// API endpoints report failures through the foundation/errors HTTP adapter;
// the page route always answers with an HTML document.
package handlers
