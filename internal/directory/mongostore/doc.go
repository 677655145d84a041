// Package mongostore keeps custody bundles in MongoDB.
//
// Each document is keyed by user and device with a unique index, and
// documents are only ever inserted, so a second upload for the same device
// fails with ALREADY_EXISTS.
package mongostore
