// Package grpcledger serves a host ledger and its runtime over gRPC and
// provides the matching client.Submitter.
//
// Importing the package registers the "grpc" backend with client/registry.
package grpcledger
