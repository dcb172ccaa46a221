// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package accountant

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
)

type statusResponse struct {
	LastID  string `json:"last_id"`
	TxCount int64  `json:"tx_count"`
}

type balanceResponse struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// NewAPI returns the http inspection api of acc
func NewAPI(acc *Accountant) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, &statusResponse{
			LastID:  hex.EncodeToString(acc.LastID()),
			TxCount: acc.TxCount(),
		})
	})
	r.GET("/lastid", func(c *gin.Context) {
		c.String(http.StatusOK, hex.EncodeToString(acc.LastID()))
	})
	r.GET("/balances/:pubkey", func(c *gin.Context) {
		b, err := hex.DecodeString(c.Param("pubkey"))
		if err != nil {
			c.String(http.StatusBadRequest, "cannot decode public key, %+v", err)
			return
		}
		pubKey, err := core.NewPublicKey(b)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		balance, found, err := acc.Balance(pubKey)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		if !found {
			c.String(http.StatusNotFound, "account not found")
			return
		}
		c.JSON(http.StatusOK, &balanceResponse{
			Account: c.Param("pubkey"),
			Balance: balance,
		})
	})
	return r
}

// ServeAPI serves the inspection api on addr until ctx is done
func ServeAPI(ctx context.Context, addr string, acc *Accountant) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: NewAPI(acc),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.I().Infow("accountant api serving", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
