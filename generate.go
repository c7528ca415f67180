package main

//go:generate go fmt ./...
//go:generate go run -mod=mod github.com/99designs/gqlgen
