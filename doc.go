// Package pgsource implements a partitioned, pull-based PostgreSQL bulk-read
// source for a heterogeneous data-federation library. It prepares one or
// more queries against a pooled connection, splits them into independent
// Partitions, and streams the result of each as a row-major tuple sequence
// to a downstream writer via three wire protocols: binary COPY, CSV COPY,
// and a row-by-row cursor.
//
// The TLS connector, connection-string rewriting, and the writer
// (Destination) side are external collaborators and are not implemented
// here.
package pgsource
