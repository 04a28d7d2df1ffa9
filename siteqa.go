// Package siteqa crawls a documentation or institutional website, keeps a
// resumable link graph and corpus of everything it fetched, cleans that
// corpus into text units, indexes them for vector search, and answers
// natural language questions over the result with hybrid retrieval.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, gemini/).
package siteqa
