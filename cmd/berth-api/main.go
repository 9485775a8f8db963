package main

func main() {
	app := mustBootstrapBerthAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !isShutdown(err) {
		panic(err)
	}
}
