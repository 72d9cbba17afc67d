/*
The sync package implements cdnsync's sync algorithm. It brings a local
directory up to date with the files a CDN publishes in its manifest.

The manifest is split into directory groups by the first path component. For
example, "engine/bin/a.exe" belongs to the "engine" group and is synced to
"bin/a.exe" within the target directory. Groups are synced one at a time.

Syncing a group happens in two steps:
1) Classify -- Every entry in the group is compared against the local file.
   Missing files always need to be downloaded. Existing files are compared by
   their BLAKE3 hash, which is taken from the hash cache when possible so that
   unchanged files don't need to be rehashed on every run.
2) Download -- Stale and missing files are downloaded one after another and
   rehashed. Failures are handed to a RetryPolicy, which decides whether to try
   again. Only verified files are recorded in the hash cache.

Files that exist locally but aren't in the manifest are left alone.
*/
package sync
