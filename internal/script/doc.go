// Package script turns a generated broadcast script into a speakable pair of
// plain text and speech markup.
//
// Scripts arrive as free text: sometimes a markdown narrative, sometimes a
// narrative wrapping a <speak> block (fenced or bare). Normalize finds the
// embedded markup when there is one and derives plain text from it; otherwise
// it strips the recognised markdown subset and synthesizes markup from the
// resulting paragraphs. Every transform is an ordered table of rewrite rules
// so each pass can be tested on its own.
package script
