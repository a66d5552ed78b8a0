// Command actasd runs the document repository service: it opens the shared
// database, enforces single-instance execution through a lock file, and
// serves the REST API until interrupted.
package main
