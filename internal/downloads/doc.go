// Package downloads coordinates the lifecycle of video download jobs: it
// validates submissions, enforces the concurrency cap, drives yt-dlp through
// one worker goroutine per job, and retires finished or abandoned jobs. The
// jobs registry is the single source of truth; this package supplies the
// policy around it.
package downloads
