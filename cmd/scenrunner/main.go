// Scenrunner drives a single autonomous-driving test scenario against a
// simulator and reports pass/fail results.
package main

func main() {
	Execute()
}
