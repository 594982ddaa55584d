// Command reelmatch recommends movies similar to a chosen title, serves the
// same recommendations over HTTP, and manages the similarity matrix and
// poster URL caches.
package main
