package scanner

import "github.com/sevigo/autoci/internal/core"

// DemoFingerprint is used when repository checkout is disabled, so onboarding
// can run end to end without network access to the source host.
func DemoFingerprint() *Fingerprint {
	files := []string{"package.json", "src/index.ts", "README.md", "Dockerfile"}
	return &Fingerprint{
		Files:      files,
		TotalFiles: len(files),
		Readme:     "# Nexus Project\nBuild automation platform using Node.js and PostgreSQL.",
		Manifests: []core.FileContent{
			{Path: "package.json", Content: `{"dependencies": {"express": "4.18.0"}}`},
		},
	}
}
