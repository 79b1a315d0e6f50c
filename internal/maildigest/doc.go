// Package maildigest builds the email summary file the broadcast reads.
//
// Messages from the last day are fetched from Gmail, advertising is
// detected by subject keywords, and every other message is summarized by
// the generative backend into a small JSON record.
package maildigest
