// Package extraction turns meeting notes into staged task drafts.
//
// The pipeline renders the instruction (package prompt), calls the
// configured generator, then defends against whatever text comes back:
// Sanitize strips code fences and surrounding commentary, parses into an
// untyped map and validates it entry by entry. Entries without a title are
// dropped with a Diagnostic instead of failing the whole response. Assemble
// converts the surviving entries into Drafts dated with the extraction day.
//
// Only one extraction runs at a time per Pipeline; a concurrent call fails
// fast with ErrExtractionInProgress.
package extraction
