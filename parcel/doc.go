// Package parcel defines the Data Parcel Token, the hierarchical
// classification key tagged onto every payload in the pipeline, and the
// classifier that derives tokens deterministically from raw protocol event
// kinds. Tokens serve both as subscription keys (what a normalizer or
// behaviour accepts) and as payload tags (what a unit of work carries).
package parcel
