package main

import "github.com/ValentinKolb/wiredoc/cmd/wiredoc"

func main() {
	wiredoc.Execute()
}
