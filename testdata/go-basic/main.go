package main

import "fmt"

func main() {
	fmt.Println(greet("world"))
}

func greet(name string) string {
	return decorate(name)
}

func decorate(name string) string {
	return "hello, " + name
}

func unusedHelper() string {
	return "never called"
}
