package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/mq"
	"github.com/wneessen/go-mail"
)

type mailKind struct {
	template string
	subject  string
}

// 消息类型与邮件模板、标题的对应关系
var mailKinds = map[string]mailKind{
	"create_user": {template: "new_account_email.html", subject: "课程管理系统 - 欢迎注册"},
}

var errUnknownMailType = errors.New("不支持的邮件类型")

type worker struct {
	logger    *slog.Logger
	client    *mail.Client
	from      string
	templates string
}

// buildMessage 根据消息类型渲染邮件正文，返回的错误表示消息本身有问题，重试也不会成功
func (w *worker) buildMessage(body []byte) (*mail.Msg, error) {
	mailMessage := domain.MailMessage{}
	if err := json.Unmarshal(body, &mailMessage); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	kind, ok := mailKinds[mailMessage.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownMailType, mailMessage.Type)
	}

	tmpl, err := template.ParseFiles(filepath.Join(w.templates, kind.template))
	if err != nil {
		return nil, fmt.Errorf("无法解析邮件模板: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(w.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(mailMessage.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	if err := msg.SetBodyHTMLTemplate(tmpl, mailMessage.Data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(kind.subject)

	return msg, nil
}

func (w *worker) handle(delivery amqp.Delivery) {
	w.logger.Info("收到消息", slog.String("message", string(delivery.Body)))

	msg, err := w.buildMessage(delivery.Body)
	if err != nil {
		w.logger.Error("丢弃无法处理的消息", slog.String("error", err.Error()))
		_ = delivery.Nack(false, false)
		return
	}

	if err := w.client.DialAndSend(msg); err != nil {
		w.logger.Error("邮件发送失败", slog.String("error", err.Error()))
		_ = delivery.Nack(false, true) // 将消息重新入队
		return
	}

	_ = delivery.Ack(false)
}

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	dialCtx, cancelDial := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancelDial()
	if err := client.DialWithContext(dialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	q, err := mq.DeclareQueue(ch, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 手动确认，发送失败的消息重新入队
	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	w := &worker{
		logger:    logger,
		client:    client,
		from:      cfg.Email.SMTP.Username,
		templates: "./templates",
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}
				w.handle(delivery)
			}
		}
	}()

	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-ctx.Done()

	slog.Info("正在关闭 mail worker...")
	wg.Wait()
	slog.Info("mail worker 已成功关闭")
}
