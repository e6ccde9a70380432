// Package content holds the typed model of pages, blocks and site chrome as
// delivered by the Contentful GraphQL Content API.
//
// Every field except Sys.ID is optional upstream; decoding never fails on a
// missing field and consumers must tolerate zero values. Blocks form a closed
// tagged union discriminated by the GraphQL __typename.
package content
