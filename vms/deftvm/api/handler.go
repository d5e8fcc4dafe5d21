// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/utils/json"
)

// ServiceName is the JSON-RPC namespace of the API. Methods are called as
// "deft.<method>" with a lowercase first letter, e.g. "deft.getReserves".
const ServiceName = "deft"

// NewHandler returns a JSON-RPC 2.0 handler serving the API of vm.
func NewHandler(vm VM) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(NewService(vm), ServiceName); err != nil {
		return nil, fmt.Errorf("failed to register %s service: %w", ServiceName, err)
	}
	return server, nil
}
