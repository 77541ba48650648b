// Package textutil holds small text normalization helpers shared across the
// download pipeline.
package textutil
