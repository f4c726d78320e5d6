package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

type CreateUserInput struct {
	NameUser         string `json:"nameUser"         validate:"required,min=2,max=100"`
	EmailUser        string `json:"emailUser"        validate:"required,email"`
	PhoneUser        string `json:"phoneUser,omitempty"        validate:"omitempty,max=20"`
	SpecialitiesUser string `json:"specialitiesUser,omitempty" validate:"omitempty,max=200"`
	PasswordHashUser string `json:"passwordHashUser" validate:"required,min=8,max=72"`
	UserImage        string `json:"userImage,omitempty"`
}

type UpdateUserInput struct {
	UserID           int64  `json:"userId"           validate:"required,gt=0"`
	NameUser         string `json:"nameUser,omitempty"         validate:"omitempty,min=2,max=100"`
	EmailUser        string `json:"emailUser,omitempty"        validate:"omitempty,email"`
	PhoneUser        string `json:"phoneUser,omitempty"        validate:"omitempty,max=20"`
	SpecialitiesUser string `json:"specialitiesUser,omitempty" validate:"omitempty,max=200"`
	IsActiveUser     *bool  `json:"isActiveUser,omitempty"`
	UserImage        string `json:"userImage,omitempty"`
}

type UserFilters struct {
	NameUser         string
	EmailUser        string
	PhoneUser        string
	SpecialitiesUser string
	IsActiveUser     *bool
	PageNumber       int
	PageSize         int
}

func (f UserFilters) query() url.Values {
	q := url.Values{}
	if f.NameUser != "" {
		q.Set("nameUser", f.NameUser)
	}
	if f.EmailUser != "" {
		q.Set("emailUser", f.EmailUser)
	}
	if f.PhoneUser != "" {
		q.Set("phoneUser", f.PhoneUser)
	}
	if f.SpecialitiesUser != "" {
		q.Set("specialitiesUser", f.SpecialitiesUser)
	}
	if f.IsActiveUser != nil {
		q.Set("isActiveUser", strconv.FormatBool(*f.IsActiveUser))
	}
	if f.PageNumber > 0 {
		q.Set("pageNumber", strconv.Itoa(f.PageNumber))
	}
	if f.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	return q
}

func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, c.applicationURL, "Users", nil, in)
}

func (c *Client) UpdateUser(ctx context.Context, in UpdateUserInput) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, c.applicationURL, "Users/"+strconv.FormatInt(in.UserID, 10), nil, in)
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, c.applicationURL, "Users/"+strconv.FormatInt(userID, 10), nil, nil)
}

func (c *Client) ListUsers(ctx context.Context, filters UserFilters) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.applicationURL, "Users", filters.query(), nil)
}

func (c *Client) GetUserByID(ctx context.Context, userID int64) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.applicationURL, "Users/"+strconv.FormatInt(userID, 10), nil, nil)
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("email", email)
	return c.do(ctx, http.MethodGet, c.applicationURL, "Users/by-email", q, nil)
}
