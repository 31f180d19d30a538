// Package main PilotCD deployment platform API
//
//	@title			PilotCD API
//	@version		0.0.1
//	@description	PilotCD orchestrates staged application deployments with health monitoring and automatic rollback
//
//	@contact.name	API Support
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host			localhost:3000
//	@BasePath		/api/v1
package main

import "github.com/pilotcd/pilotcd/internal"

//go:generate swag init --parseDependency --outputTypes go -g ./main.go -o ./internal/server/docs

func main() {
	internal.Run()
}
