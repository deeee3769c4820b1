package v1

import (
	context "context"

	http "github.com/go-kratos/kratos/v2/transport/http"
)

const OperationCreditServiceCreateAccount = "/api.credit.v1.CreditService/CreateAccount"
const OperationCreditServiceGetAccount = "/api.credit.v1.CreditService/GetAccount"
const OperationCreditServiceCheckBalance = "/api.credit.v1.CreditService/CheckBalance"
const OperationCreditServiceDeduct = "/api.credit.v1.CreditService/Deduct"
const OperationCreditServiceGrant = "/api.credit.v1.CreditService/Grant"
const OperationCreditServiceListTransactions = "/api.credit.v1.CreditService/ListTransactions"
const OperationCreditServiceLinkBillingCustomer = "/api.credit.v1.CreditService/LinkBillingCustomer"
const OperationCreditServiceQuote = "/api.credit.v1.CreditService/Quote"

const OperationAdminServiceGetStats = "/api.credit.v1.AdminService/GetStats"
const OperationAdminServiceAdjustBalance = "/api.credit.v1.AdminService/AdjustBalance"
const OperationAdminServiceSetAdmin = "/api.credit.v1.AdminService/SetAdmin"
const OperationAdminServiceAuditAccount = "/api.credit.v1.AdminService/AuditAccount"

type CreditServiceHTTPServer interface {
	CreateAccount(context.Context, *CreateAccountRequest) (*Account, error)
	GetAccount(context.Context, *GetAccountRequest) (*Account, error)
	CheckBalance(context.Context, *CheckBalanceRequest) (*CheckBalanceReply, error)
	Deduct(context.Context, *DeductRequest) (*LedgerReply, error)
	Grant(context.Context, *GrantRequest) (*LedgerReply, error)
	ListTransactions(context.Context, *ListTransactionsRequest) (*ListTransactionsReply, error)
	LinkBillingCustomer(context.Context, *LinkBillingCustomerRequest) (*LinkBillingCustomerReply, error)
	Quote(context.Context, *QuoteRequest) (*QuoteReply, error)
}

type AdminServiceHTTPServer interface {
	GetStats(context.Context, *GetStatsRequest) (*GetStatsReply, error)
	AdjustBalance(context.Context, *AdjustBalanceRequest) (*LedgerReply, error)
	SetAdmin(context.Context, *SetAdminRequest) (*Account, error)
	AuditAccount(context.Context, *AuditAccountRequest) (*AuditAccountReply, error)
}

func RegisterCreditServiceHTTPServer(s *http.Server, srv CreditServiceHTTPServer) {
	r := s.Route("/")
	r.POST("/v1/accounts", _CreditService_CreateAccount0_HTTP_Handler(srv))
	r.GET("/v1/accounts/{account_id}", _CreditService_GetAccount0_HTTP_Handler(srv))
	r.GET("/v1/accounts/{account_id}/balance", _CreditService_CheckBalance0_HTTP_Handler(srv))
	r.POST("/v1/accounts/{account_id}/deduct", _CreditService_Deduct0_HTTP_Handler(srv))
	r.POST("/v1/accounts/{account_id}/grant", _CreditService_Grant0_HTTP_Handler(srv))
	r.GET("/v1/accounts/{account_id}/transactions", _CreditService_ListTransactions0_HTTP_Handler(srv))
	r.POST("/v1/accounts/{account_id}/billing-customer", _CreditService_LinkBillingCustomer0_HTTP_Handler(srv))
	r.POST("/v1/accounts/{account_id}/quote", _CreditService_Quote0_HTTP_Handler(srv))
}

func RegisterAdminServiceHTTPServer(s *http.Server, srv AdminServiceHTTPServer) {
	r := s.Route("/")
	r.GET("/v1/admin/stats", _AdminService_GetStats0_HTTP_Handler(srv))
	r.POST("/v1/admin/accounts/{account_id}/adjust", _AdminService_AdjustBalance0_HTTP_Handler(srv))
	r.POST("/v1/admin/accounts/{account_id}/admin", _AdminService_SetAdmin0_HTTP_Handler(srv))
	r.GET("/v1/admin/accounts/{account_id}/audit", _AdminService_AuditAccount0_HTTP_Handler(srv))
}

func _CreditService_CreateAccount0_HTTP_Handler(srv CreditServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CreateAccountRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreditServiceCreateAccount)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.CreateAccount(ctx, req.(*CreateAccountRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*Account)
		return ctx.Result(200, reply)
	}
}

func _CreditService_GetAccount0_HTTP_Handler(srv CreditServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetAccountRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreditServiceGetAccount)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetAccount(ctx, req.(*GetAccountRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*Account)
		return ctx.Result(200, reply)
	}
}

func _CreditService_CheckBalance0_HTTP_Handler(srv CreditServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CheckBalanceRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreditServiceCheckBalance)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.CheckBalance(ctx, req.(*CheckBalanceRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*CheckBalanceReply)
		return ctx.Result(200, reply)
	}
}

func _CreditService_Deduct0_HTTP_Handler(srv CreditServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in DeductRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreditServiceDeduct)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Deduct(ctx, req.(*DeductRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*LedgerReply)
		return ctx.Result(200, reply)
	}
}

func _CreditService_Grant0_HTTP_Handler(srv CreditServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GrantRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreditServiceGrant)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Grant(ctx, req.(*GrantRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*LedgerReply)
		return ctx.Result(200, reply)
	}
}

func _CreditService_ListTransactions0_HTTP_Handler(srv CreditServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListTransactionsRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreditServiceListTransactions)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListTransactions(ctx, req.(*ListTransactionsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListTransactionsReply)
		return ctx.Result(200, reply)
	}
}

func _CreditService_LinkBillingCustomer0_HTTP_Handler(srv CreditServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in LinkBillingCustomerRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreditServiceLinkBillingCustomer)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.LinkBillingCustomer(ctx, req.(*LinkBillingCustomerRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*LinkBillingCustomerReply)
		return ctx.Result(200, reply)
	}
}

func _CreditService_Quote0_HTTP_Handler(srv CreditServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in QuoteRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationCreditServiceQuote)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Quote(ctx, req.(*QuoteRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*QuoteReply)
		return ctx.Result(200, reply)
	}
}

func _AdminService_GetStats0_HTTP_Handler(srv AdminServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetStatsRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationAdminServiceGetStats)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetStats(ctx, req.(*GetStatsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*GetStatsReply)
		return ctx.Result(200, reply)
	}
}

func _AdminService_AdjustBalance0_HTTP_Handler(srv AdminServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in AdjustBalanceRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationAdminServiceAdjustBalance)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.AdjustBalance(ctx, req.(*AdjustBalanceRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*LedgerReply)
		return ctx.Result(200, reply)
	}
}

func _AdminService_SetAdmin0_HTTP_Handler(srv AdminServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in SetAdminRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationAdminServiceSetAdmin)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.SetAdmin(ctx, req.(*SetAdminRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*Account)
		return ctx.Result(200, reply)
	}
}

func _AdminService_AuditAccount0_HTTP_Handler(srv AdminServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in AuditAccountRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationAdminServiceAuditAccount)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.AuditAccount(ctx, req.(*AuditAccountRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*AuditAccountReply)
		return ctx.Result(200, reply)
	}
}
