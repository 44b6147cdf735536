// Package filesystem provides the engine's low-level file operations:
// atomic writes and NAS-resilient reads.
//
// WriteAtomic implements the temp-file + fsync + rename protocol that
// underlies every mutation the engine performs (sidecar writes, upload
// storage). CopyVerifyRemove is the cross-directory variant used by the
// reject operation. On any failure the target file is left in its
// pre-operation state and the temp file is removed.
//
// StatWithRetry and OpenWithRetry wrap os.Stat and os.Open with retry logic
// for NFS stale file handle errors (ESTALE), which occur on the NAS-backed
// library trees the engine serves.
package filesystem
