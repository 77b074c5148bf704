// Package ggk is the Grants Graph Kit. It turns raw bulk nonprofit tax filings
// (Form 990 / 990-PF XML archives) into a bidirectional grants graph, and
// derives from it a small network centered on one foundation.
//
// The batch pipeline runs in stages, leaves first:
//
// 1. Fetch
//
//    One remote archive exists per (year, month). The fetch package streams
//    each archive to disk, verifying the written byte count against the
//    declared content length, and never leaves a truncated file behind for a
//    later stage to mistake for a complete one. An S3 mirror source lives in
//    aws/s3 for the same archives. A month which the publisher has not posted
//    yet is an expected skip, not an error.
//
// 2. Extract
//
//    The zipx package unpacks an archive, tolerating the warnings and
//    per-entry errors that large government data exports routinely produce.
//    Only an archive from which nothing at all could be extracted is a hard
//    failure.
//
// 3. Parse
//
//    The xml990 package classifies each filing document by cheap structural
//    inspection, then extracts a normalized FilingRecord. Field names vary
//    across filing years and preparation software, so every field is probed
//    through an ordered list of candidate paths, first match wins. One
//    malformed document never aborts a batch.
//
// 4. Merge
//
//    The DatasetBuilder merges all parsed batches into one CompleteDataset of
//    Foundations (who gave) and Organizations (who received), resolving
//    recipients without tax IDs to deterministic placeholder keys, then
//    consolidating placeholders into real entries by normalized-name match.
//    Parsed batches are cached per month (cache package, boltdb) so reruns
//    only do real work for new months.
//
// 5. Serialize and derive
//
//    WriteDataset streams the potentially gigabyte-scale dataset to disk one
//    entry at a time. The NetworkBuilder then derives the two-layer ego-graph
//    around the central foundation, which the serve package exposes to the
//    display layer as a single JSON document.

package ggk
