// Package state provides the questionnaire session store: per-user machine
// position, the answer buffer of an in-progress run, finalized profiles and
// per-user locks that serialize event handling.
package state
