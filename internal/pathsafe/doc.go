// Package pathsafe confines filesystem access to configured library roots.
//
// Resolve maps a library-relative path to an absolute path beneath a root,
// rejecting traversal attempts (".." segments, absolute paths, symlink
// escapes) with ErrPathTraversal. The package also provides the filename
// and upload-name sanitizers used by the upload ingestor.
package pathsafe
