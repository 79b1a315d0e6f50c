// Package textutil matches song titles loosely.
//
// A title becomes a bag of folded tokens: lowercased, accents stripped,
// split on anything that is not a letter or digit. Latin tokens shorter than
// 3 characters are dropped; tokens with CJK characters are always kept since
// titles in those scripts rarely contain spaces. Bags compare by cosine
// similarity.
package textutil
