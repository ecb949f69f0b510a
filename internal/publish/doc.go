// Package publish writes rendered snapshots to a storage backend.
//
// The live server and the render command publish the server-rendered page
// after every successful render, so a static copy of the current document
// is always available outside the process.
//
// Targets:
//
//	s3://bucket/prefix   Amazon S3 or an S3-compatible store
//	file:///var/www/app  a local directory
//	./out                a local directory
//
// S3 credentials come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_SESSION_TOKEN; the region from the configuration or AWS_REGION.
package publish
