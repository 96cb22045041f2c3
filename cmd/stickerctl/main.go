package main

import "github.com/feral-file/ff-sticker/cmd/stickerctl/cmd"

func main() {
	cmd.Execute()
}
