package service

import "context"

// postCommit 收集事务提交后才执行的尽力操作（通知、文档上传）
type postCommit struct {
	fns []func(context.Context)
}

func (p *postCommit) add(fn func(context.Context)) {
	p.fns = append(p.fns, fn)
}

func (p *postCommit) run(ctx context.Context) {
	for _, fn := range p.fns {
		fn(ctx)
	}
	p.fns = nil
}
