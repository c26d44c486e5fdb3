// Package model defines the data structures shared across sitesnap.
//
// The types here are passive records: the crawler produces them, the
// database persists them, and the report writers render them. Keeping
// them in one dependency-free package avoids import cycles between the
// crawler, storage, and reporting layers.
package model
