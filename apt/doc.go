// Package apt publishes Debian packages into a static, signed APT
// repository tree (pool/ and dists/) suitable for serving over plain HTTP.
//
// A publish run is a linear pipeline over the filesystem: resolve and create
// the pool and distribution layout, copy the artifacts into the pool,
// regenerate the per-architecture Packages indices, regenerate the Release
// descriptor with its checksum manifest, and sign it (InRelease and
// Release.gpg). Every stage reads only the previous stage's on-disk output
// and every generated file is written to a temporary path and renamed into
// place, so an interrupted run leaves the tree safe to re-publish.
package apt
