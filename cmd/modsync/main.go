// Command modsync scans a local mods directory, resolves each archive
// against Modrinth and CurseForge, downloads updates, and swaps between
// saved modpack snapshots.
package main

func main() {
	Execute()
}
