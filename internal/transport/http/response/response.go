package response

type Resp struct {
	Code    int               `json:"code"`
	Msg     string            `json:"msg"`
	Data    interface{}       `json:"data"`
	Details map[string]string `json:"details,omitempty"`
}

// New 保证 data 不为 null
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error customMsg 为空时使用默认文案
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// WithDetails 字段级错误，key 为 json 字段名
func (r Resp) WithDetails(d map[string]string) Resp {
	if len(d) > 0 {
		r.Details = d
	}
	return r
}
