// Package landing serves the bridge's static landing page.
//
// The page is embedded into the binary with go:embed. A directory on disk
// can replace it at runtime (landing.dir in the config), which is handy when
// editing the page without rebuilding.
//
// Only GET / and the page's own assets are served. Unknown paths answer 404;
// there is no client-side routing to fall back to.
package landing
