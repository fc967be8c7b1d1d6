// Package ingestion implements the log ingestion engine.
//
// An Engine accepts jobs from several sources (direct API calls, uploaded
// files, batch files, webhooks and long-lived streams), queues them by
// priority and runs them on a bounded worker pool. Each job is split into
// lines which are handed to a classify.Classifier one at a time:
//   - direct-api, file-upload and webhook jobs decode their payload in memory
//   - batch-file jobs read their file in fixed-size chunks
//   - stream jobs drain a stream.Buffer until the stream is closed
//
// A classifier failure only affects the line being classified. The job still
// completes and lists the line under FailedIDs. Decode and I/O failures fail
// the whole job.
//
// Two background loops run beside the dispatcher: a metrics collector that
// samples throughput and memory, and a sweeper that evicts finished jobs once
// their retention window has passed. All three are started by Start and
// joined by Shutdown.
package ingestion
