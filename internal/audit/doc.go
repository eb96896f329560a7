// Package audit holds the request, page, agent, report and record types that
// flow through the website audit pipeline, together with the interfaces the
// pipeline depends on:
//   - Fetcher / Extractor / PageCache for turning a URL into page text.
//   - Generator for the external text-generation capability.
//   - RecordStore for the processing -> completed record lifecycle.
//   - BlobStore / Publisher for archiving reports and announcing completion.
package audit
