// Package normalisers provides implementations of the Normaliser interface.
// Normalisers clean extracted transcript text before it is chunked; text
// extraction from PDF or DOCX happens upstream and is not repeated here.
package normalisers
