// File: feed/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package feed moves the position stream. Client subscribes to a publisher
// and queues raw samples, Deduper writes changed positions into the shared
// position cell, and Publisher serves a stream to any number of subscribers.
package feed
