// Package preflight provides readiness checks for the files, directories,
// and external services reelmatch depends on.
//
// These checks run in two contexts:
//   - The API server logs RunAll results at startup so a broken install is
//     visible before the first request fails.
//   - The CLI "reelmatch status" command renders RunAll results as a table.
//
// Checks never mutate state: a missing similarity matrix with a download
// URL configured passes, since the first load fetches it.
package preflight
