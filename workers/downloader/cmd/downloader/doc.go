/*
Downloader runs the URL acquisition service.

The worker is responsible for:
  - Extracting media with yt-dlp, falling back to a direct HTTP transfer
  - Enforcing the direct transfer size ceiling before and during the transfer
  - Delivering the file to object storage as a video or a document
  - Remembering the last URL per session so it can be retried
  - Publishing progress and outcome events

# Architecture

	├── cmd/
	│   ├── downloader/        # Service entry point (HTTP or Lambda)
	│   └── fetchctl/          # Local CLI around the same pipeline
	├── internal/
	│   ├── domain/            # Requests, results, reasons and errors
	│   ├── acquisition/       # Strategy ordering and scratch lifecycle
	│   ├── extractor/         # yt-dlp subprocess
	│   ├── fetcher/           # Streaming HTTP transfer
	│   ├── delivery/          # Object keys and storage upload
	│   ├── session/           # Last URL per session
	│   └── worker/            # handler.Worker and event publishing
	└── mocks/                 # testify mocks for the strategies

# Usage

Every request is a handler.Request. Over HTTP the type comes from the path
or the X-Request-Type header:

	POST /acquire
	Content-Type: application/json

	{
	    "session_id": "chat-42",
	    "text": "check this https://example.com/watch?v=abc"
	}

A successful response carries the delivered file:

	{
	    "success": true,
	    "data": {
	        "strategy": "extraction",
	        "file_name": "clip.mp4",
	        "size_bytes": 7340032,
	        "kind": "video",
	        "key": "chat-42/2026/10/16/1b4e..._clip.mp4"
	    }
	}

The other request types are retry, dismiss, start, help, about and sites.

# Errors

Failures are returned with a stable code and a message that is safe to
show: NO_URL, INVALID_URL, SESSION_STATE_EMPTY, ACQUISITION_FAILED and
DELIVERY_FAILED. The machine readable failure reason of an acquisition is
logged, published with the acquisition.failed event and set as the
"reason" response metadata.

# Configuration

Configuration is read from the environment and optional .env files. The
main settings are ACQUIRE_MAX_DIRECT_BYTES, ACQUIRE_SCRATCH_DIR,
EXTRACTOR_BINARY, DELIVERY_VIDEO_MAX_BYTES, STORAGE_PROVIDER and
QUEUE_PROVIDER.
*/
package main
