package redisio_test

import (
	"context"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/pipeflow/pkg/streaming/redisio"
)

func ExampleListSink() {
	mr, err := miniredis.Run()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ws, _ := redisio.ListSink(redisio.DefaultSinkConfig(client, "audit"))

	ctx := context.Background()
	_ = ws.Write(ctx, "login")
	_ = ws.Write(ctx, "logout")
	_ = ws.Close(ctx)

	entries, _ := client.LRange(ctx, "audit", 0, -1).Result()
	fmt.Println(entries)

	// Output:
	// [login logout]
}
