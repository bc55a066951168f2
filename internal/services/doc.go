// Package services holds cross-cutting support shared by the external
// service clients and the pipeline: sentinel errors for failure
// classification and context annotation helpers for correlation.
package services
