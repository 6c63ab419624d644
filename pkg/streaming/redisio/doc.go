// Package redisio adapts Redis lists to streams.
//
// ListSource pops entries with BLPOP only while the consumer has room for
// them, so a Redis list can act as a durable buffer in front of a slow
// pipeline. ListSink appends with RPUSH and can trim and expire the list as
// it goes.
package redisio
