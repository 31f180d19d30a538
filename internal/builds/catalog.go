package builds

import "github.com/pilotcd/pilotcd/internal/deployments"

// catalog holds the per-framework defaults applied after detection. A
// Dockerfile found in the checkout overrides the catalog entry's.
var catalog = map[string]deployments.FrameworkInfo{
	"nextjs": {
		Name:           "nextjs",
		InstallCommand: "npm ci",
		TestCommand:    "npm test -- --watchAll=false",
		BuildCommand:   "npm run build",
		OutputDir:      ".next",
		Port:           3000,
	},
	"react": {
		Name:           "react",
		InstallCommand: "npm ci",
		TestCommand:    "npm test -- --watchAll=false",
		BuildCommand:   "npm run build",
		OutputDir:      "build",
		Port:           3000,
	},
	"vue": {
		Name:           "vue",
		InstallCommand: "npm ci",
		TestCommand:    "npm run test:unit",
		BuildCommand:   "npm run build",
		OutputDir:      "dist",
		Port:           8080,
	},
	"express": {
		Name:           "express",
		InstallCommand: "npm ci",
		TestCommand:    "npm test",
		BuildCommand:   "",
		OutputDir:      "",
		Port:           3000,
	},
	"fastify": {
		Name:           "fastify",
		InstallCommand: "npm ci",
		TestCommand:    "npm test",
		BuildCommand:   "",
		OutputDir:      "",
		Port:           3000,
	},
	"static": {
		Name:           "static",
		InstallCommand: "",
		TestCommand:    "",
		BuildCommand:   "",
		OutputDir:      ".",
		Port:           80,
	},
}

// detectionOrder lists package.json dependencies in precedence order.
// Frameworks built on top of others (nextjs on react) come first.
var detectionOrder = []struct {
	dependency string
	framework  string
}{
	{"next", "nextjs"},
	{"react", "react"},
	{"vue", "vue"},
	{"fastify", "fastify"},
	{"express", "express"},
}
