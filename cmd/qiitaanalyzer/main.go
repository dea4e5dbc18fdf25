package main

import "QiitaAnalyzer/internal/cli"

func main() {
	cli.Execute()
}
