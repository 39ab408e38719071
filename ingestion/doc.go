// Package ingestion drives the write path: chunk a document, embed the
// chunks through the provider selector, and index the resulting vectors.
// Per-document locking keeps concurrent ingests and deletes for the same
// document serialized without blocking unrelated documents.
package ingestion
