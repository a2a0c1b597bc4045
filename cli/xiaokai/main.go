package main

import (
	"os"

	xiaokaicmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai"
)

func main() {
	cmd := xiaokaicmder.NewXiaokaiCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
